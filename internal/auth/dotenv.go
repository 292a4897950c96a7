package auth

import (
	"os"
	"path/filepath"

	"github.com/joho/godotenv"
)

func envLookup(key string) string {
	return os.Getenv(key)
}

// FindDotenv locates the nearest .env file, walking upward from startDir
// (the working directory when empty) to the filesystem root, and returns
// its parsed contents. The first file found wins; parent files are not
// merged in. No file at all is not an error and yields an empty map.
func FindDotenv(startDir string) (map[string]string, error) {
	dir := startDir

	if dir == "" {
		cwd, err := os.Getwd()
		if err != nil {
			return nil, err
		}

		dir = cwd
	}

	dir, err := filepath.Abs(dir)
	if err != nil {
		return nil, err
	}

	for {
		candidate := filepath.Join(dir, ".env")

		info, err := os.Stat(candidate)
		if err == nil && !info.IsDir() {
			return godotenv.Read(candidate)
		}

		parent := filepath.Dir(dir)
		if parent == dir {
			return map[string]string{}, nil
		}

		dir = parent
	}
}
