// Command server loads a preprocessed binary snapshot and serves the
// routing HTTP API over it.
package main

import (
	"flag"
	"fmt"
	"log"
	"os"
	"runtime"
	"runtime/debug"
	"time"

	"github.com/F0rt1s/routing/internal/api"
	"github.com/F0rt1s/routing/internal/ch"
	"github.com/F0rt1s/routing/internal/engine"
	"github.com/F0rt1s/routing/internal/ingest"
	"github.com/F0rt1s/routing/internal/profile"
	"github.com/F0rt1s/routing/internal/profileset"
	"github.com/F0rt1s/routing/internal/resolver"
	"github.com/F0rt1s/routing/internal/restriction"
	"github.com/F0rt1s/routing/internal/store"
)

func main() {
	graphPath := flag.String("graph", "graph.bin", "Path to preprocessed binary snapshot")
	port := flag.Int("port", 8080, "HTTP port")
	corsOrigin := flag.String("cors-origin", "", "CORS allowed origin (empty = same-origin)")
	flag.Parse()

	start := time.Now()

	log.Printf("loading snapshot from %s", *graphPath)
	snap, err := store.ReadBinary(*graphPath)
	if err != nil {
		log.Fatalf("load snapshot: %v", err)
	}
	log.Printf("loaded: %d vertices, %d edges, %d restrictions, %d profiles",
		snap.Net.NumVertices, snap.Net.NumEdges, len(snap.Restrictions), len(snap.Profiles))

	restrictionIndex := restriction.NewIndex(snap.Restrictions)

	res := resolver.New(snap.Net)

	cfg := engine.Config{
		Profiles:      make(map[string]profile.Profile, len(snap.Profiles)),
		Restrictions:  make(map[string]*restriction.Index, len(snap.Profiles)),
		VertexOverlay: make(map[string]*ch.Graph, len(snap.Profiles)),
		EdgeOverlay:   make(map[string]*ch.Graph, len(snap.Profiles)),
		EdgeAdjacency: make(map[string]*ch.EdgeAdjacency, len(snap.Profiles)),
	}

	for name, overlay := range snap.Profiles {
		prof, ok := loadProfile(name)
		if !ok {
			log.Printf("snapshot names profile %q with no known profile table; skipping", name)
			continue
		}
		cache := profile.BuildCache(prof, ingest.MaxProfileID())

		cfg.Profiles[name] = cache
		cfg.Restrictions[name] = restrictionIndex
		if overlay.VertexOverlay != nil {
			cfg.VertexOverlay[name] = overlay.VertexOverlay
		}
		if overlay.EdgeOverlay != nil {
			cfg.EdgeOverlay[name] = overlay.EdgeOverlay
			cfg.EdgeAdjacency[name] = ch.NewEdgeAdjacency(snap.Net, cache, restrictionIndex)
		}
	}

	eng := engine.New(snap.Net, res, cfg)

	// Reclaim memory from init-time temporaries (CH overlay deserialization,
	// R-tree construction): left alone, Go's GC doubles the heap each cycle
	// on the way up and never gives the extra back on its own.
	runtime.GC()
	debug.FreeOSMemory()

	log.Printf("ready in %s", time.Since(start).Round(time.Millisecond))

	addr := fmt.Sprintf(":%d", *port)
	srvCfg := api.DefaultConfig(addr)
	srvCfg.CORSOrigin = *corsOrigin

	profileNames := make([]string, 0, len(cfg.Profiles))
	for name := range cfg.Profiles {
		profileNames = append(profileNames, name)
	}
	stats := api.StatsResponse{
		NumVertices: snap.Net.NumVertices,
		NumEdges:    snap.Net.NumEdges,
		Profiles:    profileNames,
	}

	handlers := api.NewHandlers(eng, stats)
	srv := api.NewServer(srvCfg, handlers)

	if err := api.ListenAndServe(srv); err != nil {
		log.Printf("server stopped: %v", err)
		os.Exit(1)
	}
}

// loadProfile rebuilds the named VehicleProfile table. cmd/preprocess and
// cmd/server must agree on these tables independently of what's in the
// snapshot, since only the contracted overlays (not the profile's
// factor/direction rules) are persisted.
func loadProfile(name string) (profile.Profile, bool) {
	for _, p := range profileset.Build() {
		if p.Name() == name {
			return p, true
		}
	}
	return nil, false
}
