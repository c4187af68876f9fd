// babel-lsp is the language server entry point: it speaks LSP over
// stdio to editors, offering completion, hover and diagnostics driven
// by the same compile pipeline the babel CLI uses.
package main

import (
	"flag"
	"fmt"
	"os"

	"github.com/babellang/babel/server"
	"github.com/babellang/babel/store"
)

func main() {
	historyPath := flag.String("history", "", "sqlite file to record checked documents to (empty disables history)")
	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: babel-lsp [options]\n\n")
		fmt.Fprintf(os.Stderr, "Speaks the Language Server Protocol over stdio.\n\n")
		fmt.Fprintf(os.Stderr, "Options:\n")
		flag.PrintDefaults()
	}
	flag.Parse()

	var worker *server.StoreWorker
	if *historyPath != "" {
		history, err := store.OpenHistory(*historyPath)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
		worker = server.NewStoreWorker(history)
		defer worker.Stop()
		defer history.Close()
	}

	lsp := server.NewLSP(worker)
	if err := lsp.Run(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
