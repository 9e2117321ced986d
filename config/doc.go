// Package config loads and validates the olsd configuration.
//
// A configuration is assembled from ordered layers. Each layer is a JSON or
// YAML file; later layers deep-merge over earlier ones (objects merge key
// by key, every other value replaces). Environment variables prefixed with
// OLS override the result, e.g. OLS_LOG_LEVEL, OLS_METRICS_PORT or
// OLS_NATS_URLS.
//
//	loader := config.NewLoader()
//	loader.AddLayer("configs/base.yaml")
//	loader.AddLayer("configs/production.json")
//	loader.EnableValidation(true)
//
//	cfg, err := loader.Load()
//	if err != nil {
//		return err
//	}
//
// # Pipeline section
//
// The pipeline lists element instances and the links between them:
//
//	pipeline:
//	  elements:
//	    - name: numbers
//	      type: counter_source
//	      settings: {limit: 100}
//	    - name: out
//	      type: file_output
//	      settings: {path: /tmp/numbers.log, format: lines}
//	  links:
//	    - from: numbers
//	      to: out.sink
//
// Link endpoints are "element" or "element.pad". ValidateElements checks
// every element's settings against the JSON Schema exported by its type's
// properties.
//
// SafeConfig wraps a Config for concurrent readers; Get returns a deep copy
// and Update validates before swapping.
package config
