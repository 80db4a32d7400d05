package main

import "github.com/shouni/go-habr-scan/cmd"

func main() {
	cmd.Execute()
}
