// Command preprocess turns an OSM PBF extract into the binary snapshot
// cmd/server loads at startup: it parses the extract, keeps only the
// largest connected component, builds a VehicleProfile table per routing
// profile (car/bike/foot), and contracts both the node-based and (where
// restrictions allow) edge-based hierarchies for each one.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/F0rt1s/routing/internal/ch"
	"github.com/F0rt1s/routing/internal/ingest"
	"github.com/F0rt1s/routing/internal/network"
	"github.com/F0rt1s/routing/internal/profile"
	"github.com/F0rt1s/routing/internal/profileset"
	"github.com/F0rt1s/routing/internal/restriction"
	"github.com/F0rt1s/routing/internal/store"
)

func main() {
	input := flag.String("input", "", "Path to .osm.pbf file")
	output := flag.String("output", "graph.bin", "Output binary snapshot file path")
	bbox := flag.String("bbox", "", "Bounding box filter: minLat,minLng,maxLat,maxLng (e.g. 1.15,103.6,1.48,104.1)")
	singapore := flag.Bool("singapore", false, "Shortcut for --bbox 1.15,103.6,1.48,104.1 (Singapore bounding box)")
	kl := flag.Bool("kl", false, "Shortcut for --bbox 2.75,101.2,3.5,102.0 (Selangor + Kuala Lumpur bounding box)")
	flag.Parse()

	if *input == "" {
		fmt.Fprintln(os.Stderr, "Usage: preprocess --input <file.osm.pbf> [--output graph.bin] [--singapore | --kl | --bbox minLat,minLng,maxLat,maxLng]")
		os.Exit(1)
	}

	var opts ingest.ParseOptions
	switch {
	case *kl:
		opts.BBox = ingest.BBox{MinLat: 2.75, MaxLat: 3.5, MinLng: 101.2, MaxLng: 102.0}
		log.Println("using Selangor + KL bounding box filter: lat [2.75, 3.50], lng [101.20, 102.00]")
	case *singapore:
		opts.BBox = ingest.BBox{MinLat: 1.15, MaxLat: 1.48, MinLng: 103.6, MaxLng: 104.1}
		log.Println("using Singapore bounding box filter: lat [1.15, 1.48], lng [103.6, 104.1]")
	case *bbox != "":
		var minLat, minLng, maxLat, maxLng float64
		if _, err := fmt.Sscanf(*bbox, "%f,%f,%f,%f", &minLat, &minLng, &maxLat, &maxLng); err != nil {
			log.Fatalf("invalid bbox format (expected minLat,minLng,maxLat,maxLng): %v", err)
		}
		opts.BBox = ingest.BBox{MinLat: minLat, MaxLat: maxLat, MinLng: minLng, MaxLng: maxLng}
		log.Printf("using bounding box filter: lat [%.4f, %.4f], lng [%.4f, %.4f]", minLat, maxLat, minLng, maxLng)
	}

	start := time.Now()

	log.Println("opening OSM file")
	f, err := os.Open(*input)
	if err != nil {
		log.Fatalf("open input file: %v", err)
	}
	defer f.Close()

	log.Println("parsing OSM data")
	parsed, err := ingest.Parse(context.Background(), f, opts)
	if err != nil {
		log.Fatalf("parse OSM data: %v", err)
	}
	log.Printf("parsed %d directed edges, %d node coordinates", len(parsed.Edges), len(parsed.VertexLat))

	log.Println("building graph")
	net, idMap := network.BuildWithIDs(parsed.Edges, parsed.VertexLat, parsed.VertexLon)
	restrictions := parsed.ResolveRestrictions(idMap)
	log.Printf("graph: %d vertices, %d edges, %d resolved restrictions", net.NumVertices, net.NumEdges, len(restrictions))

	log.Println("extracting largest connected component")
	component := network.LargestComponent(net)
	log.Printf("largest component: %d vertices (%.1f%%)", len(component), float64(len(component))/float64(net.NumVertices)*100)
	net, remap := network.FilterToComponent(net, component)
	restrictions = remapRestrictions(restrictions, remap)
	log.Printf("filtered graph: %d vertices, %d edges, %d restrictions survived", net.NumVertices, net.NumEdges, len(restrictions))

	restrictionIndex := restriction.NewIndex(restrictions)

	meta := make([]store.Meta, len(parsed.Meta))
	for i, m := range parsed.Meta {
		meta[i] = store.Meta{Name: m.Name, Ref: m.Ref}
	}

	profiles := profileset.Build()
	overlays := make(map[string]store.ProfileOverlay, len(profiles))

	for _, prof := range profiles {
		cache := profile.BuildCache(prof, ingest.MaxProfileID())
		log.Printf("contracting node-based hierarchy for profile %q", prof.Name())
		vertexAdj := ch.NewVertexAdjacency(net, cache)
		vertexOverlay := ch.Contract(vertexAdj)

		overlay := store.ProfileOverlay{VertexOverlay: vertexOverlay}

		edgeAdj := ch.NewEdgeAdjacency(net, cache, restrictionIndex)
		if edgeAdj.ExactlyRepresentable() {
			log.Printf("contracting edge-based hierarchy for profile %q", prof.Name())
			overlay.EdgeOverlay = ch.Contract(edgeAdj)
		} else {
			log.Printf("profile %q has restrictions too long for the edge-based hierarchy; falling back to the restriction-aware vertex kernel at query time", prof.Name())
		}

		overlays[prof.Name()] = overlay
	}

	snap := &store.Snapshot{
		Net:          net,
		Meta:         meta,
		Restrictions: restrictions,
		Profiles:     overlays,
	}

	log.Printf("writing binary snapshot to %s", *output)
	if err := store.WriteBinary(*output, snap); err != nil {
		log.Fatalf("write binary snapshot: %v", err)
	}

	info, _ := os.Stat(*output)
	log.Printf("done in %s. output: %s (%.1f MB)", time.Since(start).Round(time.Second), *output, float64(info.Size())/(1024*1024))
}

// remapRestrictions translates every restriction's vertex sequence through
// remap (as returned by network.FilterToComponent), dropping restrictions
// that reference a vertex the component filter removed.
func remapRestrictions(in []restriction.Restriction, remap map[uint32]uint32) []restriction.Restriction {
	out := make([]restriction.Restriction, 0, len(in))
	for _, r := range in {
		verts := make([]uint32, 0, len(r.Vertices))
		ok := true
		for _, v := range r.Vertices {
			nv, found := remap[v]
			if !found {
				ok = false
				break
			}
			verts = append(verts, nv)
		}
		if ok {
			out = append(out, restriction.Restriction{Vertices: verts})
		}
	}
	return out
}

