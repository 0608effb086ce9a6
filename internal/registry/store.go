package registry

import (
	"database/sql"
	"encoding/json"
	"fmt"

	_ "modernc.org/sqlite"

	"github.com/banshee-data/tabletop/internal/tabletop"
)

// Store persists model meshes in SQLite so a model library survives process
// restarts. Geometry is stored as JSON columns; meshes are small (hundreds
// of vertices) so no binary encoding is needed.
type Store struct {
	*sql.DB
}

// NewStore opens (creating if necessary) the model database at path.
func NewStore(path string) (*Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}

	_, err = db.Exec(`
		CREATE TABLE IF NOT EXISTS models (
			model_id          INTEGER PRIMARY KEY,
			name              TEXT,
			vertices          TEXT NOT NULL,
			triangles         TEXT NOT NULL,
			timestamp         TIMESTAMP DEFAULT CURRENT_TIMESTAMP
		);
	`)
	if err != nil {
		db.Close()
		return nil, err
	}

	return &Store{db}, nil
}

// SaveMesh inserts or replaces the mesh stored under modelID.
func (s *Store) SaveMesh(modelID int, name string, mesh Mesh) error {
	vertices, err := json.Marshal(mesh.Vertices)
	if err != nil {
		return fmt.Errorf("failed to encode vertices for model %d: %w", modelID, err)
	}
	triangles, err := json.Marshal(mesh.Triangles)
	if err != nil {
		return fmt.Errorf("failed to encode triangles for model %d: %w", modelID, err)
	}

	_, err = s.Exec(
		`INSERT OR REPLACE INTO models (model_id, name, vertices, triangles) VALUES (?, ?, ?, ?)`,
		modelID, name, string(vertices), string(triangles),
	)
	if err != nil {
		return fmt.Errorf("failed to save model %d: %w", modelID, err)
	}
	return nil
}

// LoadMesh returns the mesh stored under modelID.
func (s *Store) LoadMesh(modelID int) (Mesh, error) {
	var vertices, triangles string
	err := s.QueryRow(
		`SELECT vertices, triangles FROM models WHERE model_id = ?`, modelID,
	).Scan(&vertices, &triangles)
	if err != nil {
		return Mesh{}, fmt.Errorf("failed to load model %d: %w", modelID, err)
	}
	return decodeMesh(modelID, vertices, triangles)
}

// ModelIDs returns the IDs of all stored models in ascending order.
func (s *Store) ModelIDs() ([]int, error) {
	rows, err := s.Query(`SELECT model_id FROM models ORDER BY model_id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var ids []int
	for rows.Next() {
		var id int
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

// DeleteModel removes the mesh stored under modelID. Deleting an absent
// model is not an error.
func (s *Store) DeleteModel(modelID int) error {
	_, err := s.Exec(`DELETE FROM models WHERE model_id = ?`, modelID)
	return err
}

// LoadInto registers every stored mesh with reg and returns how many models
// were loaded.
func (s *Store) LoadInto(reg *Registry) (int, error) {
	rows, err := s.Query(`SELECT model_id, vertices, triangles FROM models ORDER BY model_id`)
	if err != nil {
		return 0, err
	}
	defer rows.Close()

	loaded := 0
	for rows.Next() {
		var id int
		var vertices, triangles string
		if err := rows.Scan(&id, &vertices, &triangles); err != nil {
			return loaded, err
		}
		mesh, err := decodeMesh(id, vertices, triangles)
		if err != nil {
			return loaded, err
		}
		reg.AddObject(id, mesh)
		loaded++
	}
	return loaded, rows.Err()
}

func decodeMesh(modelID int, vertices, triangles string) (Mesh, error) {
	var mesh Mesh
	if err := json.Unmarshal([]byte(vertices), &mesh.Vertices); err != nil {
		return Mesh{}, fmt.Errorf("corrupt vertices for model %d: %w", modelID, err)
	}
	if err := json.Unmarshal([]byte(triangles), &mesh.Triangles); err != nil {
		return Mesh{}, fmt.Errorf("corrupt triangles for model %d: %w", modelID, err)
	}
	if mesh.Vertices == nil {
		mesh.Vertices = []tabletop.Point{}
	}
	return mesh, nil
}
