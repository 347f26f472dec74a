package main

import (
	"log"
	"os"
	"strconv"
	"strings"
	"syscall"
)

// 向正在运行的 fooddash watch 发送 SIGHUP, 让它重新打开日志并重建数据
// 用法: go run . [pid文件], 默认 fooddash.pid
func main() {
	pidFile := "fooddash.pid"
	if len(os.Args) > 1 {
		pidFile = os.Args[1]
	}

	content, err := os.ReadFile(pidFile)
	if err != nil {
		log.Fatal("Failed to read pid file:", err)
	}
	pid, err := strconv.Atoi(strings.TrimSpace(string(content)))
	if err != nil {
		log.Fatal("Invalid pid file:", err)
	}

	err = syscall.Kill(pid, syscall.SIGHUP)
	if err != nil {
		log.Fatal("Failed to send SIGHUP:", err)
	}
}
