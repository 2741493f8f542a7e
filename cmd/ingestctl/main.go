package main

import "ingestion-gateway/cmd/ingestctl/cmd"

func main() {
	cmd.Execute()
}
