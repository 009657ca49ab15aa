package main

import (
	"os"

	basixcmder "github.com/gmoreiraDEV/basix-engine/cmd/basix"
)

func main() {
	if err := basixcmder.NewBasixCmd().Execute(); err != nil {
		os.Exit(1)
	}
}
