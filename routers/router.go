package routers

import (
	"SeriesVideo-server/config"
	"SeriesVideo-server/routers/api"

	"github.com/gin-gonic/gin"
)

func InitRouter() *gin.Engine {
	r := gin.Default()
	// Local artifacts are served when object storage is off.
	r.Static("/media", config.AppConfig.Media.WorkDir)
	r.GET("/healthz", api.Health)

	v1 := r.Group("/v1/api")
	{
		v1.POST("/series", api.CreateSeries)
		v1.GET("/series", api.ListSeries)
		v1.GET("/series/:id", api.GetSeries)
		v1.PUT("/series/:id", api.UpdateSeries)
		v1.DELETE("/series/:id", api.DeleteSeries)

		v1.POST("/series/:id/generate", api.GenerateSeries)
		v1.DELETE("/series/:id/generate", api.CancelGeneration)
		v1.GET("/series/:id/videos", api.ListVideos)
		v1.GET("/videos/:video_id", api.GetVideo)

		v1.GET("/series/:id/progress", api.GetProgress)
		v1.DELETE("/series/:id/progress", api.ClearProgress)
		v1.GET("/series/:id/progress/wss", api.ProgressWebSocket)
	}
	return r
}
