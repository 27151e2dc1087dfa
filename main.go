package main

import "github.com/frahmantamala/service-desk/cmd"

func main() {
	cmd.Execute()
}
