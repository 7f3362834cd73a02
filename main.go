// SPDX-License-Identifier: MPL-2.0

package main

import cmd "github.com/dbcgen/dbcgen/cmd/dbcgen"

func main() {
	cmd.Execute()
}
