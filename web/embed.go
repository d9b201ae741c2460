package web

import (
	_ "embed"
)

// IndexHTML 看板页面
//
//go:embed index.html
var IndexHTML []byte
