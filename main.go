package main

import (
	"github.com/tscast/tscast/internal/app"
	"github.com/tscast/tscast/internal/push"
	"github.com/tscast/tscast/internal/record"
	"github.com/tscast/tscast/pkg/shell"
)

func main() {
	app.Init() // init config and logs

	record.Init() // segmented recording with a live playlist
	push.Init()   // SRT push to a remote listener

	shell.RunUntilSignal()
}
