package model

// Route is a gateway endpoint path.
type Route string

const (
	RouteChat             Route = "/api/chat"
	RouteReasoning        Route = "/api/reasoning"
	RouteSearch           Route = "/api/search"
	RouteSearchPerplexity Route = "/api/search/perplexity"
	RouteTasks            Route = "/api/tasks"
)

// ChatRoutes lists the routes that speak the UI message stream, in display order.
var ChatRoutes = []Route{RouteChat, RouteReasoning, RouteSearch, RouteSearchPerplexity}

func (r Route) Label() string {
	switch r {
	case RouteChat:
		return "chat"
	case RouteReasoning:
		return "reasoning"
	case RouteSearch:
		return "search"
	case RouteSearchPerplexity:
		return "search (perplexity)"
	case RouteTasks:
		return "tasks"
	default:
		return string(r)
	}
}
