package api

import (
	"net/http"
	"strings"

	"eduverse/internal/user"

	"github.com/gin-gonic/gin"
)

// getSession 当前登录用户
// 响应: {"user": userObject|null}
func (h *Handler) getSession(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"user": h.currentUser()})
}

// login 使用邮箱登录，不校验密码
// 请求体: {"email": "..."}
func (h *Handler) login(c *gin.Context) {
	var req struct {
		Email string `json:"email" binding:"required,email"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "请输入有效的邮箱地址"})
		return
	}
	u := h.userService.Login(strings.TrimSpace(req.Email))
	c.JSON(http.StatusOK, gin.H{"user": u})
}

// signup 注册新用户，总是替换当前会话
// 请求体: {"name": "...", "email": "..."}
func (h *Handler) signup(c *gin.Context) {
	var req struct {
		Name  string `json:"name" binding:"required"`
		Email string `json:"email" binding:"required,email"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "请输入姓名与有效的邮箱地址"})
		return
	}
	u := h.userService.Signup(strings.TrimSpace(req.Name), strings.TrimSpace(req.Email))
	c.JSON(http.StatusCreated, gin.H{"user": u})
}

// logout 退出登录并删除保存的资料
func (h *Handler) logout(c *gin.Context) {
	h.userService.Logout()
	c.Status(http.StatusNoContent)
}

// updateProfile 部分更新资料（例如选择身份）
// 请求体: user.Patch
func (h *Handler) updateProfile(c *gin.Context) {
	var patch user.Patch
	if err := c.ShouldBindJSON(&patch); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "请求参数错误: " + err.Error()})
		return
	}
	if !h.userService.Update(patch) {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "请先登录"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"user": h.currentUser()})
}

// upgrade 升级为高级会员（模拟支付成功）
func (h *Handler) upgrade(c *gin.Context) {
	if !h.userService.UpgradeToPremium() {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "请先登录"})
		return
	}
	h.logger.Info("用户已升级为高级会员")
	c.JSON(http.StatusOK, gin.H{"user": h.currentUser()})
}
