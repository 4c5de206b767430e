package web

import (
	"net/http"
	"path"
)

const notFoundBody = "Resource not Found"

// StaticHandler serves files under folder. Anything missing gets a plain
// 404 instead of the file server's directory fallback.
func StaticHandler(folder string) http.Handler {
	root := http.Dir(folder)
	files := http.FileServer(root)

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		name := path.Clean("/" + r.URL.Path)
		if !exists(root, name) {
			w.Header().Set("Content-Type", "text/plain; charset=utf-8")
			w.WriteHeader(http.StatusNotFound)
			w.Write([]byte(notFoundBody))
			return
		}
		files.ServeHTTP(w, r)
	})
}

func exists(root http.FileSystem, name string) bool {
	f, err := root.Open(name)
	if err != nil {
		return false
	}
	defer f.Close()

	st, err := f.Stat()
	if err != nil {
		return false
	}
	if !st.IsDir() {
		return true
	}
	index, err := root.Open(path.Join(name, "index.html"))
	if err != nil {
		return false
	}
	index.Close()
	return true
}
