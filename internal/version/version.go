// 包 version：构建信息，通过 -ldflags "-X myip/internal/version.Commit=..." 注入
package version

var (
	Version = "dev"
	Commit  = "unknown"
)

func String() string { return Version + " (" + Commit + ")" }
