package postgres

import (
	"context"
	"errors"
	"time"

	"github.com/followerscart/backend/internal/domain/post"
	"github.com/followerscart/backend/internal/observability"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type PostsRepo struct {
	pool *pgxpool.Pool
	prom *observability.Prom
}

func NewPostsRepo(pool *pgxpool.Pool, prom *observability.Prom) *PostsRepo {
	return &PostsRepo{pool: pool, prom: prom}
}

func (r *PostsRepo) observe(op string, fn func() error) error {
	if r.prom != nil {
		return r.prom.ObserveDB(op, fn)
	}
	return fn()
}

const postColumns = `id, title, content, author, snippet, image_url, created_at, updated_at`

func scanPost(row pgx.Row) (post.Post, error) {
	var p post.Post

	err := row.Scan(
		&p.ID,
		&p.Title,
		&p.Content,
		&p.Author,
		&p.Snippet,
		&p.ImageURL,
		&p.CreatedAt,
		&p.UpdatedAt,
	)

	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return post.Post{}, post.ErrNotFound
		}
		return post.Post{}, err
	}
	return p, nil
}

func (r *PostsRepo) Create(ctx context.Context, req post.CreatePostRequest, author string) (post.Post, error) {
	now := time.Now().UTC()

	p := post.Post{
		ID:        uuid.NewString(),
		Title:     req.Title,
		Content:   req.Content,
		Author:    author,
		Snippet:   post.DeriveSnippet(req.Snippet, req.Content),
		ImageURL:  req.ImageURL,
		CreatedAt: now,
		UpdatedAt: now,
	}

	err := r.observe("posts.create", func() error {
		_, err := r.pool.Exec(ctx,
			`INSERT INTO posts (id, title, content, author, snippet, image_url, created_at, updated_at)
         VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
			p.ID, p.Title, p.Content, p.Author, p.Snippet, p.ImageURL, p.CreatedAt, p.UpdatedAt,
		)
		return err
	})

	if err != nil {
		if IsUniqueViolation(err) {
			return post.Post{}, post.ErrTitleTaken
		}
		return post.Post{}, err
	}

	return p, nil
}

func (r *PostsRepo) GetByID(ctx context.Context, id string) (post.Post, error) {
	var p post.Post
	var err error

	err = r.observe("posts.get_by_id", func() error {
		p, err = scanPost(r.pool.QueryRow(ctx,
			`SELECT `+postColumns+` FROM posts WHERE id = $1`, id))
		return err
	})

	return p, err
}

// List returns all posts, newest first.
func (r *PostsRepo) List(ctx context.Context) ([]post.Post, error) {
	var out []post.Post

	err := r.observe("posts.list", func() error {
		rows, err := r.pool.Query(ctx,
			`SELECT `+postColumns+` FROM posts ORDER BY created_at DESC`)
		if err != nil {
			return err
		}
		defer rows.Close()

		for rows.Next() {
			p, err := scanPost(rows)
			if err != nil {
				return err
			}
			out = append(out, p)
		}
		return rows.Err()
	})

	if err != nil {
		return nil, err
	}
	if out == nil {
		out = []post.Post{}
	}
	return out, nil
}

func (r *PostsRepo) Update(ctx context.Context, id string, req post.UpdatePostRequest) (post.Post, error) {
	var p post.Post
	var err error

	err = r.observe("posts.update", func() error {
		p, err = scanPost(r.pool.QueryRow(ctx,
			`UPDATE posts
         SET title = $2,
             content = $3,
             snippet = $4,
             image_url = CASE WHEN $5 = '' THEN image_url ELSE $5 END,
             updated_at = NOW()
         WHERE id = $1
         RETURNING `+postColumns,
			id, req.Title, req.Content, post.DeriveSnippet(req.Snippet, req.Content), req.ImageURL,
		))
		return err
	})

	if err != nil {
		if IsUniqueViolation(err) {
			return post.Post{}, post.ErrTitleTaken
		}
		return post.Post{}, err
	}

	return p, nil
}

func (r *PostsRepo) Delete(ctx context.Context, id string) error {
	return r.observe("posts.delete", func() error {
		tag, err := r.pool.Exec(ctx, `DELETE FROM posts WHERE id = $1`, id)
		if err != nil {
			return err
		}
		if tag.RowsAffected() == 0 {
			return post.ErrNotFound
		}
		return nil
	})
}
