package util

const (
	DefaultPage  = 1
	DefaultLimit = 10
	MaxLimit     = 100
)

// ChapterCachePrefix 章节相关 GET 接口的缓存前缀，任何章节写操作都会整体失效
const ChapterCachePrefix = "/api/chapters"
