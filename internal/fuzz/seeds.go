package fuzztests

import (
	"io/fs"
	"os"
	"path/filepath"
	"testing"
)

const (
	maxSeedBytes = 64 << 10 // 64 KiB
)

// worldSeed is one corpus entry; toml selects the decoder.
type worldSeed struct {
	src  []byte
	toml bool
}

// testdataWorlds collects the repository's example worlds.
func testdataWorlds() []worldSeed {
	root := filepath.Join("..", "..", "cmd", "substcheck", "testdata")
	if _, err := os.Stat(root); err != nil {
		return nil
	}
	var seeds []worldSeed
	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, walkErr error) error {
		if walkErr != nil || d.IsDir() {
			return nil
		}
		ext := filepath.Ext(path)
		if ext != ".toml" && ext != ".yaml" && ext != ".yml" {
			return nil
		}
		// #nosec G304 -- path comes from repository testdata walk
		src, err := os.ReadFile(path)
		if err != nil {
			return nil
		}
		seeds = append(seeds, worldSeed{src: clampSeed(src), toml: ext == ".toml"})
		return nil
	})
	if err != nil {
		return nil
	}
	return seeds
}

func addWorldSeeds(f *testing.F) {
	for _, s := range testdataWorlds() {
		f.Add(s.src, s.toml)
	}
	// a minimal world in case testdata is empty
	f.Add([]byte{}, true)
	f.Add([]byte("[[nominal]]\nname = \"Int\"\n"), true)
	f.Add([]byte("nominals:\n  - name: Int\n"), false)
}

func clampSeed(src []byte) []byte {
	if len(src) <= maxSeedBytes {
		return append([]byte(nil), src...)
	}
	return append([]byte(nil), src[:maxSeedBytes]...)
}
