package main

import (
	"github.com/Codewithkaranja/Unipro-RealEstate/internal/app"
	"github.com/Codewithkaranja/Unipro-RealEstate/internal/config"
)

func main() {
	app.MustRun(config.MustLoad())
}
