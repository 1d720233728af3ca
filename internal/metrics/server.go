package metrics

import (
	jsoniter "github.com/json-iterator/go"
	"github.com/prometheus/common/expfmt"
	"github.com/valyala/bytebufferpool"
	"github.com/valyala/fasthttp"
)

var jsonAPI = jsoniter.ConfigCompatibleWithStandardLibrary

// Server exposes /metrics (prometheus exposition format) and
// /debug/info (a JSON Snapshot) over fasthttp. The pack carries no
// promhttp adapter for fasthttp, so /metrics gathers the registry and
// encodes it with expfmt directly into a pooled buffer instead of
// wrapping net/http's promhttp.Handler.
type Server struct {
	collectors *Collectors
	ticker     *Ticker
}

// NewServer builds a Server backed by collectors and ticker.
func NewServer(collectors *Collectors, ticker *Ticker) *Server {
	return &Server{collectors: collectors, ticker: ticker}
}

// Handler returns the fasthttp request handler for the admin server.
func (s *Server) Handler() fasthttp.RequestHandler {
	return func(ctx *fasthttp.RequestCtx) {
		switch string(ctx.Path()) {
		case "/metrics":
			s.serveMetrics(ctx)
		case "/debug/info":
			s.serveDebugInfo(ctx)
		default:
			ctx.SetStatusCode(fasthttp.StatusNotFound)
		}
	}
}

func (s *Server) serveMetrics(ctx *fasthttp.RequestCtx) {
	families, err := s.collectors.Registry.Gather()
	if err != nil {
		ctx.SetStatusCode(fasthttp.StatusInternalServerError)
		ctx.SetBodyString(err.Error())
		return
	}

	buf := bytebufferpool.Get()
	defer bytebufferpool.Put(buf)

	enc := expfmt.NewEncoder(buf, expfmt.NewFormat(expfmt.TypeTextPlain))
	for _, mf := range families {
		if err := enc.Encode(mf); err != nil {
			ctx.SetStatusCode(fasthttp.StatusInternalServerError)
			ctx.SetBodyString(err.Error())
			return
		}
	}

	ctx.SetContentType(string(expfmt.NewFormat(expfmt.TypeTextPlain)))
	ctx.SetBody(buf.Bytes())
}

func (s *Server) serveDebugInfo(ctx *fasthttp.RequestCtx) {
	snap := s.ticker.Current()
	body, err := jsonAPI.Marshal(snap)
	if err != nil {
		ctx.SetStatusCode(fasthttp.StatusInternalServerError)
		ctx.SetBodyString(err.Error())
		return
	}
	ctx.SetContentType("application/json")
	ctx.SetBody(body)
}
