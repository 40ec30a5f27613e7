package apiserver

import (
	"context"

	"github.com/OmkarTanajiPatil/TEAICup/cnf"
	"github.com/OmkarTanajiPatil/TEAICup/reading"
	"github.com/gin-gonic/gin"
)

// maxDataRows limits the number of raw sample rows a single /data
// request may return. The dashboard never plots more anyway.
const maxDataRows = 400

type service interface {
	Start(ctx context.Context)
	Stop(ctx context.Context) error
}

// ------

// VersionInfo provides a detailed information about the actual build
type VersionInfo struct {
	Version   string `json:"version"`
	BuildDate string `json:"buildDate"`
	GitCommit string `json:"gitCommit"`
}

// ------

type seriesPoint struct {
	Time  int64   `json:"time"`
	Value float64 `json:"value"`
}

type dataResponse struct {
	Samples []reading.VariableSample `json:"samples"`

	// Series maps a variable name to its average-vs-time curve
	Series map[string][]seriesPoint `json:"series"`
}

// -----

func corsMiddleware(conf *cnf.Conf) gin.HandlerFunc {
	return func(ctx *gin.Context) {

		var allowedOrigin string
		currOrigin := ctx.Request.Header.Get("Origin")
		for _, origin := range conf.CorsAllowedOrigins {
			if currOrigin == origin || origin == "*" {
				allowedOrigin = origin
				break
			}
		}
		if allowedOrigin != "" {
			ctx.Writer.Header().Set("Access-Control-Allow-Origin", allowedOrigin)
			ctx.Writer.Header().Set("Access-Control-Allow-Credentials", "true")
			ctx.Writer.Header().Set(
				"Access-Control-Allow-Headers",
				"Content-Type, Content-Length, Accept-Encoding, Authorization, Accept, Origin, Cache-Control, X-Requested-With",
			)
			ctx.Writer.Header().Set("Access-Control-Allow-Methods", "POST, OPTIONS, GET, PUT, DELETE")
		}

		if ctx.Request.Method == "OPTIONS" {
			ctx.AbortWithStatus(204)
			return
		}
		ctx.Next()
	}
}
