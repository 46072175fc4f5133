package api

import (
	"fmt"
	"net/http"
	"time"

	"eduverse/internal/course"
	"eduverse/internal/user"
	ws "eduverse/internal/websocket"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		return true // 允许所有来源
	},
}

// handleCatalogWebSocket 订阅课程目录与用户会话的变更
// 连接建立后依次收到 connected、catalog、user 消息，之后每次变更推送一条消息
// 查询参数:
//
//	session_id: 可选，重复连接时替换旧连接
func (h *Handler) handleCatalogWebSocket(c *gin.Context) {
	if h.hub == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "推送服务不可用"})
		return
	}
	sessionID := c.Query("session_id")
	if sessionID == "" {
		sessionID = fmt.Sprintf("session_%d", time.Now().UnixNano())
	}

	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.logger.Error("WebSocket升级失败: %v", err)
		return
	}

	// 先登记再在服务读锁内投递当前状态，之后的变更通知都排在其后
	session := h.hub.Attach(sessionID, conn)
	h.courseService.ViewCourses(func(courses []course.Course) {
		session.Send(ws.Message{Type: ws.TypeCatalog, Data: courses})
	})
	h.userService.ViewCurrent(func(u *user.User) {
		session.Send(ws.Message{Type: ws.TypeUser, Data: u})
	})
	h.logger.Info("目录订阅已建立，会话: %s", sessionID)

	select {
	case <-c.Request.Context().Done():
	case <-session.Done():
	}
	h.hub.Detach(session)
	h.logger.Debug("目录订阅结束，会话: %s", sessionID)
}
