// Copyright © 2018 One Concern

package main

import (
	"github.com/oneconcern/chunkstore/cmd/chunkstore/cmd"
)

func main() {
	cmd.Execute()
}
