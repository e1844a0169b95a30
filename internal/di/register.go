package di

import "github.com/samber/do/v2"

// RegisterSingletons registers all service providers as singletons.
// Dependency order:
//  1. Config (no dependencies)
//  2. Logger (Config)
//  3. Store (Logger)
//  4. Backend (Config, Logger)
//  5. Handler (Config, Store, Backend)
//  6. Server (Config, Handler)
func RegisterSingletons(i do.Injector) {
	do.Provide(i, NewConfig)
	do.Provide(i, NewLogger)
	do.Provide(i, NewStore)
	do.Provide(i, NewBackend)
	do.Provide(i, NewHandler)
	do.Provide(i, NewHTTPServer)
}
