// Command buildstamp writes a version.json manifest describing the
// current build, mirroring what deploy pipelines read to decide whether
// connected clients should refresh.
package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/plusopinion/go-client-core/version"
)

func main() {
	out := flag.String("out", "version.json", "output path for the version manifest")
	flag.Parse()

	now := time.Now().UTC()

	v := version.Version
	if v == "dev" {
		v = strconv.FormatInt(now.UnixMilli(), 10)
	}
	build := version.Build
	if env := os.Getenv("BUILD_NUMBER"); env != "" {
		build = env
	}

	info := version.BuildInfo{
		Version:   v,
		Build:     build,
		Timestamp: now,
	}

	data, err := json.MarshalIndent(info, "", "  ")
	if err != nil {
		fmt.Fprintln(os.Stderr, "buildstamp:", err)
		os.Exit(1)
	}
	data = append(data, '\n')

	if dir := filepath.Dir(*out); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			fmt.Fprintln(os.Stderr, "buildstamp:", err)
			os.Exit(1)
		}
	}
	if err := os.WriteFile(*out, data, 0o644); err != nil {
		fmt.Fprintln(os.Stderr, "buildstamp:", err)
		os.Exit(1)
	}

	fmt.Printf("version %s build %s -> %s\n", info.Version, info.Build, *out)
}
