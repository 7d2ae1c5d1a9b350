package server

//go:generate swag init -g internal/server/swagger.go -o ../../docs

// @title Vigil API
// @version 0.1
// @description Interactive documentation for the Vigil watch-session API surface.
// @contact.name Vigil Maintainers
// @contact.url https://github.com/vigil-watch/vigil
// @BasePath /
