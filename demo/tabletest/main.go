package main

import (
	"github.com/tsunami-engine/tsunami/app"
)

func main() {
	app.RunMain()
}
