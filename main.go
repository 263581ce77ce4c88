package main

import "github.com/francesco-di-maggio/codecell/internal/cmd"

func main() {
	cmd.Execute()
}
