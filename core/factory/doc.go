// Package factory is a generic registry that builds pluggable modules, such
// as metrics sinks, from a type name and a raw settings map. Factories decode
// the settings with Decode and return the concrete implementation:
//
//	reg := factory.NewRegistry[metrics.Sink]()
//	reg.Register("influx", func(conf map[string]any) (metrics.Sink, error) {
//	    var c struct{ URL string `json:"url"` }
//	    if err := factory.Decode(conf, &c); err != nil {
//	        return nil, err
//	    }
//	    return newInflux(c.URL), nil
//	})
package factory
