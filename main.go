package main

import "github.com/benoitrobinson/OmnesImmobilier-sub000/internal/cli"

func main() {
	cli.Execute()
}
