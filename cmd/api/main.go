package main

import (
	"go.uber.org/fx"

	"github.com/jazjo-app/jazjo/internal/app"
)

func main() {
	fx.New(app.Module).Run()
}
