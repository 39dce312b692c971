// Package docs provides generated OpenAPI documentation.
//
// BookBoost API
//
//	@title			BookBoost API
//	@version		1.0
//	@description	Manuscript chapter extraction pipeline API.
//	@termsOfService	http://swagger.io/terms/
//
//	@contact.name	API Support
//	@contact.url	https://github.com/jackzampolin/bookboost
//
//	@license.name	MIT
//	@license.url	https://opensource.org/licenses/MIT
//
//	@host		localhost:8080
//	@BasePath	/
//
//	@schemes	http https
package docs

//go:generate swag init -g ../cmd/bookboost/serve.go -o ./swagger --parseDependency --parseInternal
