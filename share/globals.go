// Package share holds process-wide defaults shared by every share subpackage,
// mirroring the way the teacher module keeps a small globals file at its root.
package share

import "github.com/h0od/airdcpp-webclient/share/internal/paths"

var (
	DefaultAppName     = paths.AppName
	DefaultConfigPath  = paths.ConfigPath
	DefaultCacheDir    = paths.CacheDir
	DefaultRegistryDSN = paths.RegistryDSN

	// DefaultBloomBits is the fixed size of the share bloom filter (2^20 bits).
	DefaultBloomBits uint = 1 << 20

	// SPDefault and SPHidden are the reserved share profile ids, re-exported
	// from share/profile for callers that only need the raw ids.
	SPDefault = 0
	SPHidden  = 1
)
