// Copyright © 2018 One Concern

package main

import (
	"github.com/oneconcern/swarmtrie/cmd/swarmtrie/cmd"
)

func main() {
	cmd.Execute()
}
