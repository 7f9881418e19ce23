package main

import "github.com/andresmejia3/emotiscan/cmd"

func main() {
	cmd.Execute()
}
