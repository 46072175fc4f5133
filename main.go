package main

import (
	"fmt"
	"os"

	"eduverse/catalog"
	checkcmd "eduverse/cmd/check"
	seedcmd "eduverse/cmd/seed"
	servercmd "eduverse/cmd/server"

	"github.com/spf13/cobra"
)

func main() {
	root := &cobra.Command{
		Use:           "eduverse",
		Short:         "Eduverse 在线课程服务",
		Long:          "Eduverse 课程目录、课时访问、测验与用户会话服务。\n不带子命令运行时等同于 server。",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	server := servercmd.NewCommand(catalog.FS)
	root.AddCommand(server, checkcmd.NewCommand(catalog.FS), seedcmd.NewCommand(catalog.FS))

	// 无子命令时直接启动服务
	root.Flags().AddFlagSet(server.Flags())
	root.RunE = server.RunE

	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
