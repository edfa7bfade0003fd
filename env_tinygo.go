//go:build tinygo

package sonar

// LoadEnv is a no-op on TinyGo; settings are compiled in
func LoadEnv(files ...string) error {
	return nil
}
