package server

import (
	"fmt"
	"io"
	"net/http"

	"github.com/gabriel-vasile/mimetype"
	"github.com/gin-gonic/gin"
)

// ServeMedia streams a stored document. ?download=1 asks the browser to save
// it instead of displaying it inline.
func (s *Server) ServeMedia(c *gin.Context) {
	f, info, err := s.media.Open(c.Request.URL.Path)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	defer f.Close()

	mt, err := mimetype.DetectReader(f)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	if _, err := f.Seek(0, io.SeekStart); err != nil {
		AbortWithError(c, err)
		return
	}

	disposition := "inline"
	if c.Query("download") == "1" {
		disposition = "attachment"
	}
	c.Header("Content-Type", mt.String())
	c.Header("Content-Disposition", fmt.Sprintf("%s; filename=%q", disposition, info.Name()))
	c.Header("X-Content-Type-Options", "nosniff")
	http.ServeContent(c.Writer, c.Request, info.Name(), info.ModTime(), f)
}
