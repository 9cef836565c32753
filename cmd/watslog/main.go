// Command watslog writes, inspects and maintains the rolling WATS log file of
// a test station.
package main

import (
	"context"
	"os"

	"github.com/virinco/watsclient/internal/app"
)

func main() {
	os.Exit(app.Run(context.Background(), os.Args[1:], os.Stdout, os.Stderr))
}
