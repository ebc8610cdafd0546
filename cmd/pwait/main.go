// pwait 等待任意进程退出并报告其退出码
package main

import (
	"context"
	"os"

	"github.com/zqzqsb/pwait/cmd/pwait/cli"
)

func main() {
	os.Exit(cli.Execute(context.Background(), os.Args[1:], os.Stdout, os.Stderr, cli.DefaultRunner))
}
