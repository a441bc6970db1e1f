package mysql

import (
	"context"
	"database/sql"
	"errors"

	"hotel_media/internal/domain"
)

/********** hotel images **********/

func scanHotelImage(sc rowScanner) (domain.HotelImage, error) {
	var hi domain.HotelImage
	err := sc.Scan(&hi.ID, &hi.HotelID, &hi.ImageID, &hi.Order, &hi.IsPrimary, &hi.CreatedAt)
	return hi, err
}

// scanJoined reads the hotel_images columns followed by the images columns.
func scanJoined(sc rowScanner) (domain.HotelImageWithImage, error) {
	var out domain.HotelImageWithImage
	hi := &out.HotelImage
	img, err := scanImage(sc, &hi.ID, &hi.HotelID, &hi.ImageID, &hi.Order, &hi.IsPrimary, &hi.CreatedAt)
	if err != nil {
		return domain.HotelImageWithImage{}, err
	}
	out.Image = img
	return out, nil
}

func (r *Repo) AttachImage(ctx context.Context, hotelID, imageID int64, order int) (domain.HotelImage, error) {
	res, err := r.exec(ctx).ExecContext(ctx, insertHotelImageSQL, hotelID, imageID, order)
	if err != nil {
		return domain.HotelImage{}, translate(err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return domain.HotelImage{}, err
	}
	hi, err := scanHotelImage(r.exec(ctx).QueryRowContext(ctx, getHotelImageSQL, id))
	return hi, translate(err)
}

// SetPrimary locks the hotel row first so concurrent swaps on one hotel
// queue behind each other, then clears and sets inside the same transaction.
func (r *Repo) SetPrimary(ctx context.Context, hotelID, imageID int64) (domain.HotelImage, error) {
	var out domain.HotelImage
	err := r.inTx(ctx, func(ctx context.Context) error {
		var locked, linkID int64
		if err := r.exec(ctx).QueryRowContext(ctx, lockHotelSQL, hotelID).Scan(&locked); err != nil {
			return translate(err)
		}
		if err := r.exec(ctx).QueryRowContext(ctx, lockHotelImagePairSQL, hotelID, imageID).Scan(&linkID); err != nil {
			return translate(err)
		}
		if _, err := r.exec(ctx).ExecContext(ctx, clearPrimarySQL, hotelID); err != nil {
			return translate(err)
		}
		if _, err := r.exec(ctx).ExecContext(ctx, setPrimarySQL, linkID); err != nil {
			return translate(err)
		}
		var err error
		out, err = scanHotelImage(r.exec(ctx).QueryRowContext(ctx, getHotelImageSQL, linkID))
		return translate(err)
	})
	return out, err
}

func (r *Repo) DeleteHotelImage(ctx context.Context, id int64) (domain.HotelImage, error) {
	var out domain.HotelImage
	err := r.inTx(ctx, func(ctx context.Context) error {
		var err error
		out, err = scanHotelImage(r.exec(ctx).QueryRowContext(ctx, getHotelImageSQL+" FOR UPDATE", id))
		if err != nil {
			return translate(err)
		}
		_, err = r.exec(ctx).ExecContext(ctx, deleteHotelImageSQL, id)
		return err
	})
	return out, err
}

func (r *Repo) ListByHotel(ctx context.Context, hotelID int64) ([]domain.HotelImageWithImage, error) {
	rows, err := r.exec(ctx).QueryContext(ctx, listByHotelSQL, hotelID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []domain.HotelImageWithImage
	for rows.Next() {
		v, err := scanJoined(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, v)
	}
	return out, rows.Err()
}

func (r *Repo) PrimaryByHotel(ctx context.Context, hotelID int64) (domain.HotelImageWithImage, error) {
	v, err := scanJoined(r.exec(ctx).QueryRowContext(ctx, primaryByHotelSQL, hotelID))
	if err != nil {
		return domain.HotelImageWithImage{}, translate(err)
	}
	return v, nil
}

func (r *Repo) CountByHotel(ctx context.Context, hotelID int64) (int, error) {
	var n int
	err := r.exec(ctx).QueryRowContext(ctx, countByHotelSQL, hotelID).Scan(&n)
	return n, err
}

func (r *Repo) HotelIDsForImage(ctx context.Context, imageID int64) ([]int64, error) {
	return r.queryIDs(ctx, hotelIDsForImageSQL, imageID)
}

/********** hotels **********/

func (r *Repo) UpsertHotel(ctx context.Context, h domain.Hotel) error {
	var payload, subtype any
	var size int64
	if h.Image != nil {
		payload, subtype, size = h.Image.Payload, h.Image.Subtype, h.Image.Size
	}
	_, err := r.exec(ctx).ExecContext(ctx, upsertHotelSQL,
		h.ID,
		h.Name,
		valStr(h.City),
		payload,
		subtype,
		size,
	)
	return translate(err)
}

func (r *Repo) GetHotel(ctx context.Context, id int64) (domain.Hotel, error) {
	var h domain.Hotel
	var city, payload, subtype sql.NullString
	var size int64
	err := r.exec(ctx).QueryRowContext(ctx, getHotelSQL, id).Scan(
		&h.ID, &h.Name, &city, &payload, &subtype, &size, &h.Active, &h.CreatedAt, &h.UpdatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.Hotel{}, domain.ErrNotFound
	}
	if err != nil {
		return domain.Hotel{}, err
	}
	if city.Valid {
		c := city.String
		h.City = &c
	}
	if payload.Valid {
		h.Image = &domain.InlineImage{Payload: payload.String, Subtype: subtype.String, Size: size}
	}
	return h, nil
}

func (r *Repo) LogMiss(ctx context.Context, id int64, status int, reason string) error {
	if len(reason) > 512 {
		reason = reason[:512]
	}
	_, err := r.exec(ctx).ExecContext(ctx, insertMissSQL, id, status, reason)
	return err
}
