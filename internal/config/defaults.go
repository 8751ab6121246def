package config

const (
	defaultDataDir            = "~/.local/share/danmu"
	defaultLogDir             = "~/.local/share/danmu/logs"
	defaultServerBind         = "127.0.0.1:9321"
	defaultCacheBackend       = "sqlite"
	defaultSearchTTLMinutes   = 5
	defaultCommentTTLMinutes  = 5
	defaultMaxCatalogEntries  = 500
	defaultRequestTimeout     = 15
	defaultSearchConcurrency  = 8
	defaultSegmentConcurrency = 6
	defaultDandanBaseURL      = "https://api.dandanplay.net"
	defaultBilibiliBaseURL    = "https://api.bilibili.com"
	defaultBilibiliCommentURL = "https://api.bilibili.com/x/v2/dm/web/seg.so"
	defaultColorMode          = "default"
	defaultScript             = "none"
	defaultLogFormat          = "console"
	defaultLogLevel           = "info"
)

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		Paths: Paths{
			DataDir: defaultDataDir,
			LogDir:  defaultLogDir,
		},
		Server: Server{
			Bind: defaultServerBind,
		},
		Cache: Cache{
			Backend:           defaultCacheBackend,
			SearchTTLMinutes:  defaultSearchTTLMinutes,
			CommentTTLMinutes: defaultCommentTTLMinutes,
			MaxCatalogEntries: defaultMaxCatalogEntries,
		},
		Providers: Providers{
			Enabled:            []string{"dandan", "bilibili"},
			RequestTimeout:     defaultRequestTimeout,
			SearchConcurrency:  defaultSearchConcurrency,
			SegmentConcurrency: defaultSegmentConcurrency,
			Dandan: Dandan{
				BaseURL: defaultDandanBaseURL,
			},
			Bilibili: Bilibili{
				BaseURL:    defaultBilibiliBaseURL,
				CommentURL: defaultBilibiliCommentURL,
			},
		},
		Danmaku: Danmaku{
			ColorMode: defaultColorMode,
			Script:    defaultScript,
		},
		Logging: Logging{
			Format: defaultLogFormat,
			Level:  defaultLogLevel,
		},
	}
}
