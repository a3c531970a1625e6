package main

import "github.com/garyjia/grant-portal/cmd/giactl/cmd"

func main() {
	cmd.Execute()
}
