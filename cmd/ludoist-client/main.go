package main

import (
	"flag"
	"fmt"
	"os"

	"github.com/undeconstructed/ludoist/client"
)

func main() {
	addr := flag.String("addr", "127.0.0.1:4590", "server address")
	name := flag.String("name", "", "player name")
	flag.Parse()

	if *name == "" {
		fmt.Fprintln(os.Stderr, "need a -name")
		os.Exit(2)
	}

	c := client.NewClient(*name, *addr)
	if err := c.Run(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}
