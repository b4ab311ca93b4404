// Cyclone CLI — выполнение заданий и работа с выходными файлами.
//
// Использование:
//
//	cyclone [--json] <command> [flags]
//
// Команды:
//
//	run      Выполнить задание (один раз или по cron)
//	merge    Объединить выходные файлы
//	ls       Показать содержимое файла
//	history  История запусков циклов
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/shaiso/Cyclone/internal/analysis"
	"github.com/shaiso/Cyclone/internal/cli"
)

// version задаётся через ldflags при сборке.
var version = "dev"

func main() {
	// graceful shutdown: отмена дойдёт до идущего цикла и пула воркеров
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	rootCmd := cli.NewRootCmd(version, analysis.NewRegistry())

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		cancel()
		os.Exit(1)
	}
}
