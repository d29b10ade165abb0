package main

import "github.com/Adithya-Monish-Kumar-K/cosine-search/internal/cli"

func main() {
	cli.Execute()
}
