package livereload

import (
	"encoding/json"
	"fmt"
	"net/http"
)

// DefaultClientLibrary is the socket.io browser build loaded by the reload
// script.
const DefaultClientLibrary = "https://cdn.socket.io/4.7.5/socket.io.min.js"

const scriptTemplate = `(function () {
  var s = document.createElement("script");
  s.src = %s;
  s.onload = function () {
    var sock = io({ path: "/socket.io" });
    sock.on(%s, function () { window.location.reload(); });
  };
  document.head.appendChild(s);
})();
`

// ScriptHandler serves the snippet pages include to enable live reload.
func ScriptHandler(clientLibrary string) http.Handler {
	if clientLibrary == "" {
		clientLibrary = DefaultClientLibrary
	}
	body := fmt.Sprintf(scriptTemplate, jsString(clientLibrary), jsString(ReloadEvent))
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/javascript; charset=utf-8")
		w.Header().Set("Cache-Control", "no-cache")
		fmt.Fprint(w, body)
	})
}

// jsString renders s as a JavaScript string literal. JSON escaping also
// covers "<", ">" and the U+2028/U+2029 line terminators.
func jsString(s string) string {
	b, _ := json.Marshal(s)
	return string(b)
}
