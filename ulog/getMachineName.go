package ulog

import (
	"fmt"
	"os"
	"runtime"
)

func getMachineName() string {
	host, _ := os.Hostname()
	return fmt.Sprintf("%s-CPU%d", host, runtime.NumCPU())
}
