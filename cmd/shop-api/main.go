package main

import "github.com/SirPen9uin/shop-api/cmd/shop-api/commands"

func main() {
	commands.Execute()
}
