// Package main Cyber KB API Server
//
//	@title			Cyber KB API
//	@version		1.0
//	@description	A multi-tenant knowledge base API for document ingestion, processing and semantic search
//	@termsOfService	http://swagger.io/terms/
//
//	@contact.name	API Support
//	@contact.url	http://www.swagger.io/support
//	@contact.email	support@swagger.io
//
//	@license.name	Apache 2.0
//	@license.url	http://www.apache.org/licenses/LICENSE-2.0.html
//
//	@host		localhost:8080
//	@BasePath	/
//
//	@externalDocs.description	OpenAPI
//	@externalDocs.url			https://swagger.io/resources/open-api/
package main

import (
	"log"

	_ "github.com/Rain-kl/cyber-kb/docs" // This imports the docs package to initialize swagger
	"github.com/Rain-kl/cyber-kb/internal/config"
	"github.com/Rain-kl/cyber-kb/internal/server"
)

func main() {
	log.Println("Starting KB Server...")

	cfg := config.Load()

	srv, err := server.New(cfg)
	if err != nil {
		log.Fatalf("Failed to initialize server: %v", err)
	}

	if err := srv.Run(); err != nil {
		log.Fatalf("Server exited with error: %v", err)
	}
}
