package config

import (
	"fmt"
	"os"

	"github.com/signalsfoundry/framecheck/core"
	"github.com/signalsfoundry/framecheck/kb"
	"github.com/signalsfoundry/framecheck/model"
	"github.com/signalsfoundry/framecheck/timectrl"
)

// LoadCatalog reads Satellite.TLEFile into a catalog. It returns an empty
// catalog when no file is configured. Each watcher sees every record added
// during the load.
func (c Config) LoadCatalog(watchers ...func(kb.Event)) (*kb.Catalog, error) {
	catalog := kb.NewCatalog()
	if c.Satellite.TLEFile == "" {
		return catalog, nil
	}
	for _, fn := range watchers {
		unsubscribe := catalog.Subscribe(fn)
		defer unsubscribe()
	}
	f, err := os.Open(c.Satellite.TLEFile)
	if err != nil {
		return nil, fmt.Errorf("open TLE file: %w", err)
	}
	defer f.Close()
	if _, err := catalog.Load(f); err != nil {
		return nil, fmt.Errorf("load %s: %w", c.Satellite.TLEFile, err)
	}
	return catalog, nil
}

// Request resolves the configuration into a pipeline request. When a TLE
// file is configured the satellite is looked up in catalog by Query.
func (c Config) Request(catalog *kb.Catalog) (core.Request, error) {
	req := core.Request{
		Name:  c.Satellite.Name,
		Line1: c.Satellite.Line1,
		Line2: c.Satellite.Line2,
		Observer: model.Observer{
			Name: c.Observer.Name,
			Location: model.Geodetic{
				LatitudeDeg:  c.Observer.Latitude,
				LongitudeDeg: c.Observer.Longitude,
				AltitudeM:    c.Observer.Altitude,
			},
		},
	}
	if c.Satellite.TLEFile != "" {
		if catalog == nil {
			return req, fmt.Errorf("TLE file %s configured but no catalog loaded", c.Satellite.TLEFile)
		}
		rec, err := catalog.Lookup(c.Satellite.Query)
		if err != nil {
			return req, err
		}
		req.Name, req.Line1, req.Line2 = rec.Name, rec.Line1, rec.Line2
	}

	epoch, err := timectrl.ParseEpoch(c.Epoch)
	if err != nil {
		return req, err
	}
	req.Epoch = epoch

	if req.Frames, err = model.ParseFrames(c.Frames); err != nil {
		return req, err
	}
	if req.Gravity, err = core.ParseGravity(c.Gravity); err != nil {
		return req, err
	}
	return req, nil
}
