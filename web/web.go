// Package web 内嵌聊天页面静态资源
package web

import _ "embed"

// IndexHTML 聊天页面
//
//go:embed index.html
var IndexHTML []byte
