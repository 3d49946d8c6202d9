package server

import "fmt"

// displayServerInfo shows server configuration information
func (s *Server) displayServerInfo(addr string) {
	fmt.Printf("Session gateway listening on http://%s\n", addr)
	s.displayEndpoints()
	s.displayAuthInfo()
	s.displayRequestLimitInfo()
	s.displayRateLimitInfo()
	s.displaySessionInfo()
}

// displayEndpoints shows available API endpoints
func (s *Server) displayEndpoints() {
	fmt.Println("Available endpoints:")
	fmt.Println("  GET    /health                                - Health check")
	fmt.Println("  GET    /stats                                 - Server statistics")
	fmt.Println("  POST   /sessions                              - Open a session")
	fmt.Println("  GET    /sessions/{id}                         - Session state")
	fmt.Println("  DELETE /sessions/{id}                         - Close a session")
	fmt.Println("  POST   /sessions/{id}/resume                  - Select a resume")
	fmt.Println("  PUT    /sessions/{id}/job-description         - Edit the job description")
	fmt.Println("  POST   /sessions/{id}/analyze                 - Run an analysis")
	fmt.Println("  POST   /sessions/{id}/save                    - Save the current result")
	fmt.Println("  POST   /sessions/{id}/view                    - Load a saved analysis")
	fmt.Println("  DELETE /sessions/{id}/analyses/{analysisId}   - Delete a saved analysis")
	fmt.Println("  DELETE /sessions/{id}/resumes/{resumeId}      - Delete a resume")
}

// displayAuthInfo shows authentication configuration
func (s *Server) displayAuthInfo() {
	if n := s.APIKeys.Len(); n > 0 {
		fmt.Printf("API authentication: ENABLED (%d keys configured)\n", n)
		fmt.Println("Include 'X-API-Key: <your-key>' header in requests to /sessions")
	} else {
		fmt.Println("API authentication: DISABLED (no API keys configured)")
		fmt.Println("WARNING: session endpoints are accessible without a key!")
	}
	if s.keyWatcher != nil {
		fmt.Println("  - Keys are refreshed from Vault")
	}
}

// displayRequestLimitInfo shows request size limit configuration
func (s *Server) displayRequestLimitInfo() {
	if s.MaxRequestSize > 0 {
		fmt.Printf("Request size limit: %d bytes (%.1f MB)\n", s.MaxRequestSize, float64(s.MaxRequestSize)/(1024*1024))
	} else {
		fmt.Println("Request size limit: DISABLED")
	}
}

// displayRateLimitInfo shows rate limiting configuration
func (s *Server) displayRateLimitInfo() {
	if s.RateLimit != nil && s.RateLimit.Enabled {
		fmt.Printf("Rate limiting: ENABLED (%d requests/min, burst: %d)\n",
			s.RateLimit.RequestsPerMin, s.RateLimit.BurstCapacity)
		if s.RateLimit.SessionsPerMin > 0 {
			fmt.Printf("  - Session creation: %d/min per client\n", s.RateLimit.SessionsPerMin)
		}
		if s.RateLimit.AnalyzePerMin > 0 {
			fmt.Printf("  - Analysis runs: %d/min per session\n", s.RateLimit.AnalyzePerMin)
		}
		if s.RateLimit.ByAPIKey {
			fmt.Println("  - Per API key rate limiting enabled")
		}
		if s.RateLimit.ByIP {
			fmt.Println("  - Per IP address rate limiting enabled")
		}
	} else {
		fmt.Println("Rate limiting: DISABLED")
	}
}

func (s *Server) displaySessionInfo() {
	stats := s.Sessions.GetStats()
	fmt.Printf("Sessions: max %v, idle timeout %v\n", stats["max_sessions"], stats["session_ttl"])
}
