package server

// RegisterRoutes wires up all HTTP routes. The relay exposes a single
// websocket endpoint; everything else clients need is served elsewhere.
func (s *Server) RegisterRoutes() {
	s.E.GET("/ws/chat", s.chatHandler.Serve)
}
