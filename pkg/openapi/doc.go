// Package openapi describes a derived type as an OpenAPI 3 component schema
// so hosts exposing a REST API can publish the new type alongside the module
// artifact. Schemas are built with kin-openapi and validated before
// marshalling.
//
// Field types without a JSON Schema equivalent keep their host type under the
// `x-modelgen-type` extension.
package openapi
