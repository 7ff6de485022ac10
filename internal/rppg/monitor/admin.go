package monitor

import (
	"compress/gzip"
	"fmt"
	"io"
	"net/http"
	"os"
	"time"

	"github.com/tailscale/tailsql/server/tailsql"
	"tailscale.com/tsweb"

	"github.com/heartbeam-data/pulse.report/internal/monitoring"
)

// attachAdminRoutes mounts the tsweb debug index plus a live SQL console
// and a backup download for the session database. Only called when a
// store is configured.
func (ws *WebServer) attachAdminRoutes(mux *http.ServeMux) {
	debug := tsweb.Debugger(mux)

	// create a tailSQL instance and point it to our DB
	tsql, err := tailsql.NewServer(tailsql.Options{
		RoutePrefix: "/debug/tailsql/",
	})
	if err != nil {
		// The console is a convenience; the monitor keeps serving without it.
		monitoring.Logf("failed to create tailsql server: %v", err)
	} else {
		tsql.SetDB(fmt.Sprintf("sqlite://%s", ws.dbPath), ws.store.DB, &tailsql.DBOptions{
			Label: "rPPG sessions",
		})

		// mount the tailSQL server on the debug /tailsql path
		debug.Handle("tailsql/", "SQL live debugging", tsql.NewMux())
	}

	debug.Handle("backup", "Create and download a backup of the database now", http.HandlerFunc(ws.handleBackup))
}

// handleBackup snapshots the database with VACUUM INTO and streams the
// result gzip-compressed. The snapshot file is removed after the download.
func (ws *WebServer) handleBackup(w http.ResponseWriter, r *http.Request) {
	unixTime := time.Now().Unix()
	backupPath := fmt.Sprintf("rppg-backup-%d.db", unixTime)
	if _, err := ws.store.Exec("VACUUM INTO ?", backupPath); err != nil {
		http.Error(w, fmt.Sprintf("Failed to create backup: %v", err), http.StatusInternalServerError)
		return
	}

	backupFile, err := os.Open(backupPath)
	if err != nil {
		http.Error(w, fmt.Sprintf("Failed to open backup file: %v", err), http.StatusInternalServerError)
		return
	}

	// close the backup file after sending it
	// and remove it from the filesystem
	defer func() {
		backupFile.Close()
		if err := os.Remove(backupPath); err != nil {
			monitoring.Logf("Failed to remove backup file: %v", err)
		}
	}()

	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%s.gz", backupPath))
	w.Header().Set("Content-Type", "application/octet-stream")
	w.Header().Set("Content-Encoding", "gzip")

	gzipWriter := gzip.NewWriter(w)
	defer gzipWriter.Close()
	if _, err := io.Copy(gzipWriter, backupFile); err != nil {
		monitoring.Logf("Failed to stream backup file: %v", err)
	}
}
