package app

import "quantbt/internal/backtest"

// Runner/RunRequest 定义在 internal/backtest：transport 层也需要这两个类型，
// 放在 app 会形成 app ↔ transport 的 import 环。这里保留别名供既有调用方使用。
type (
	Runner     = backtest.Runner
	RunRequest = backtest.RunRequest
)

var NewRunner = backtest.NewRunner
