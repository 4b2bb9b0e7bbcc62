// ABOUTME: Product identification constants
// ABOUTME: Shared by the remote hello, mDNS records and startup banners
package version

import "fmt"

const (
	Version = "0.3.0"
	Product = "sdplay"
)

// String returns the product and version for banners and logs
func String() string {
	return fmt.Sprintf("%s %s", Product, Version)
}
