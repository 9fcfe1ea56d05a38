package main

import (
	"context"
	"fmt"
	"os"

	"webcam-filters/internal/presentation/cli"
)

// version задается при сборке через -ldflags
var version = "0.1.0"

func main() {
	// Создаем CLI и запускаем выбранную команду
	app := cli.NewCLI(version)

	if err := app.Execute(context.Background()); err != nil {
		fmt.Fprintf(os.Stderr, "Ошибка: %v\n", err)
		os.Exit(1)
	}
}
