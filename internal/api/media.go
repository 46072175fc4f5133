package api

import (
	"bytes"
	"net/http"

	"github.com/gin-gonic/gin"
)

// serveMedia 播放本地上传的视频，支持 Range 请求
func (h *Handler) serveMedia(c *gin.Context) {
	item, err := h.videos.Open(c.Param("handle"))
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "视频不存在或已失效"})
		return
	}
	c.Header("Content-Type", item.ContentType)
	c.Header("Cache-Control", "no-store")
	http.ServeContent(c.Writer, c.Request, item.Name, item.CreatedAt, bytes.NewReader(item.Data))
}
