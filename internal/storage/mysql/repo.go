package mysql

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/doug-martin/goqu/v9"
	_ "github.com/doug-martin/goqu/v9/dialect/mysql"
	"github.com/doug-martin/goqu/v9/exp"
	gomysql "github.com/go-sql-driver/mysql"

	"hotel_media/internal/domain"
)

var dialect = goqu.Dialect("mysql")

const (
	errDuplicateEntry   = 1062
	errNoReferencedRow  = 1452
	errNoReferencedRow2 = 1216
)

func valStr(p *string) any {
	if p == nil {
		return nil
	}
	return *p
}
func valInt(p *int) any {
	if p == nil {
		return nil
	}
	return *p
}

// translate maps driver errors onto domain errors.
func translate(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, sql.ErrNoRows) {
		return domain.ErrNotFound
	}
	var me *gomysql.MySQLError
	if errors.As(err, &me) {
		switch me.Number {
		case errDuplicateEntry:
			return fmt.Errorf("%w: %s", domain.ErrConflict, me.Message)
		case errNoReferencedRow, errNoReferencedRow2:
			return fmt.Errorf("%w: %s", domain.ErrNotFound, me.Message)
		}
	}
	return err
}

type Repo struct{ db *sql.DB }

var _ domain.Store = (*Repo)(nil)

func New(db *sql.DB) *Repo { return &Repo{db: db} }

/********** images **********/

type rowScanner interface{ Scan(dest ...any) error }

func scanImage(sc rowScanner, extra ...any) (domain.Image, error) {
	var img domain.Image
	var desc sql.NullString
	var w, h sql.NullInt64
	dest := append(extra,
		&img.ID, &img.OwnerID, &img.Title, &desc, &img.Payload, &img.Subtype,
		&img.Size, &w, &h, &img.Active, &img.CreatedAt, &img.UpdatedAt,
	)
	if err := sc.Scan(dest...); err != nil {
		return domain.Image{}, err
	}
	if desc.Valid {
		d := desc.String
		img.Description = &d
	}
	if w.Valid {
		x := int(w.Int64)
		img.Width = &x
	}
	if h.Valid {
		x := int(h.Int64)
		img.Height = &x
	}
	return img, nil
}

func (r *Repo) CreateImage(ctx context.Context, in domain.NewImage) (domain.Image, error) {
	res, err := r.exec(ctx).ExecContext(ctx, insertImageSQL,
		in.OwnerID,
		in.Title,
		valStr(in.Description),
		in.Payload,
		in.Meta.Subtype,
		in.Meta.Size,
		valInt(in.Meta.Width),
		valInt(in.Meta.Height),
	)
	if err != nil {
		return domain.Image{}, translate(err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return domain.Image{}, err
	}
	return r.GetImage(ctx, id, in.OwnerID)
}

func (r *Repo) GetImage(ctx context.Context, id, ownerID int64) (domain.Image, error) {
	img, err := scanImage(r.exec(ctx).QueryRowContext(ctx, getImageSQL, id, ownerID))
	if err != nil {
		return domain.Image{}, translate(err)
	}
	return img, nil
}

func (r *Repo) UpdateImage(ctx context.Context, id, ownerID int64, p domain.ImagePatch) (domain.Image, error) {
	rec := goqu.Record{}
	if p.Title != nil {
		rec["title"] = *p.Title
	}
	if p.Description != nil {
		if *p.Description == "" {
			rec["description"] = nil
		} else {
			rec["description"] = *p.Description
		}
	}
	if p.Active != nil {
		rec["is_active"] = *p.Active
	}
	// payload and its derived columns only move together
	if p.Payload != nil && p.Meta != nil {
		rec["image_base64"] = *p.Payload
		rec["image_type"] = p.Meta.Subtype
		rec["image_size"] = p.Meta.Size
		rec["image_width"] = valInt(p.Meta.Width)
		rec["image_height"] = valInt(p.Meta.Height)
	}

	var out domain.Image
	err := r.inTx(ctx, func(ctx context.Context) error {
		var locked int64
		if err := r.exec(ctx).QueryRowContext(ctx, lockOwnedImageSQL, id, ownerID).Scan(&locked); err != nil {
			return translate(err)
		}
		if len(rec) > 0 {
			q, args, err := dialect.Update("images").Prepared(true).Set(rec).
				Where(goqu.C("id").Eq(id), goqu.C("user_id").Eq(ownerID)).ToSQL()
			if err != nil {
				return err
			}
			if _, err := r.exec(ctx).ExecContext(ctx, q, args...); err != nil {
				return translate(err)
			}
		}
		var err error
		out, err = r.GetImage(ctx, id, ownerID)
		return err
	})
	return out, err
}

func (r *Repo) DeleteImage(ctx context.Context, id, ownerID int64) ([]int64, error) {
	var hotels []int64
	err := r.inTx(ctx, func(ctx context.Context) error {
		var locked int64
		if err := r.exec(ctx).QueryRowContext(ctx, lockOwnedImageSQL, id, ownerID).Scan(&locked); err != nil {
			return translate(err)
		}
		var err error
		if hotels, err = r.HotelIDsForImage(ctx, id); err != nil {
			return err
		}
		if _, err := r.exec(ctx).ExecContext(ctx, deleteLinksForImageSQL, id); err != nil {
			return err
		}
		_, err = r.exec(ctx).ExecContext(ctx, deleteImageSQL, id, ownerID)
		return err
	})
	if err != nil {
		return nil, err
	}
	return hotels, nil
}

// DeleteImages only touches rows owned by ownerID; the other ids are ignored.
func (r *Repo) DeleteImages(ctx context.Context, ids []int64, ownerID int64) (int64, []int64, error) {
	if len(ids) == 0 {
		return 0, nil, nil
	}
	var deleted int64
	var hotels []int64
	err := r.inTx(ctx, func(ctx context.Context) error {
		q, args, err := dialect.From("images").Prepared(true).Select("id").
			Where(goqu.C("user_id").Eq(ownerID), goqu.C("id").In(ids)).
			ForUpdate(exp.Wait).ToSQL()
		if err != nil {
			return err
		}
		owned, err := r.queryIDs(ctx, q, args...)
		if err != nil || len(owned) == 0 {
			return err
		}

		q, args, err = dialect.From("hotel_images").Prepared(true).Select(goqu.DISTINCT("hotel_id")).
			Where(goqu.C("image_id").In(owned)).Order(goqu.C("hotel_id").Asc()).ToSQL()
		if err != nil {
			return err
		}
		if hotels, err = r.queryIDs(ctx, q, args...); err != nil {
			return err
		}

		q, args, err = dialect.Delete("hotel_images").Prepared(true).
			Where(goqu.C("image_id").In(owned)).ToSQL()
		if err != nil {
			return err
		}
		if _, err := r.exec(ctx).ExecContext(ctx, q, args...); err != nil {
			return err
		}

		q, args, err = dialect.Delete("images").Prepared(true).
			Where(goqu.C("user_id").Eq(ownerID), goqu.C("id").In(owned)).ToSQL()
		if err != nil {
			return err
		}
		res, err := r.exec(ctx).ExecContext(ctx, q, args...)
		if err != nil {
			return err
		}
		deleted, err = res.RowsAffected()
		return err
	})
	if err != nil {
		return 0, nil, err
	}
	return deleted, hotels, nil
}

func (r *Repo) ListImages(ctx context.Context, ownerID int64, f domain.ImageFilter) ([]domain.Image, error) {
	ds := dialect.From(goqu.T("images").As("i")).Prepared(true).
		Select(goqu.L(imageColumns)).
		Where(goqu.I("i.user_id").Eq(ownerID))
	if f.Subtype != nil {
		ds = ds.Where(goqu.I("i.image_type").Eq(strings.ToLower(*f.Subtype)))
	}
	if f.Active != nil {
		ds = ds.Where(goqu.I("i.is_active").Eq(*f.Active))
	}
	if f.Search != nil && *f.Search != "" {
		ds = ds.Where(goqu.I("i.title").Like("%" + escapeLike(*f.Search) + "%"))
	}
	ds = ds.Order(goqu.I("i.created_at").Desc(), goqu.I("i.id").Desc())
	if f.Limit > 0 {
		ds = ds.Limit(uint(f.Limit))
	}
	q, args, err := ds.ToSQL()
	if err != nil {
		return nil, err
	}

	rows, err := r.exec(ctx).QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []domain.Image
	for rows.Next() {
		img, err := scanImage(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, img)
	}
	return out, rows.Err()
}

func (r *Repo) queryIDs(ctx context.Context, q string, args ...any) ([]int64, error) {
	rows, err := r.exec(ctx).QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		out = append(out, id)
	}
	return out, rows.Err()
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

func escapeLike(s string) string { return likeEscaper.Replace(s) }
