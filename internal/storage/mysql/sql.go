package mysql

// -----------------------------------------------------------------------------
// HOTELS
// -----------------------------------------------------------------------------

// A NULL image_base64 keeps the stored inline image; size follows the payload.
const upsertHotelSQL = `
INSERT INTO hotels
  (id, name, city, image_base64, image_type, image_size)
VALUES
  (?, ?, ?, ?, ?, ?)
ON DUPLICATE KEY UPDATE
  name         = VALUES(name),
  city         = VALUES(city),
  image_size   = IF(VALUES(image_base64) IS NULL, hotels.image_size, VALUES(image_size)),
  image_type   = COALESCE(VALUES(image_type), hotels.image_type),
  image_base64 = COALESCE(VALUES(image_base64), hotels.image_base64),
  updated_at   = CURRENT_TIMESTAMP(6)
`

const getHotelSQL = `
SELECT id, name, city, image_base64, image_type, image_size, is_active, created_at, updated_at
FROM hotels
WHERE id = ?
`

const lockHotelSQL = `SELECT id FROM hotels WHERE id = ? FOR UPDATE`

const insertMissSQL = `
INSERT INTO import_misses (id, http_status, reason)
VALUES (?, ?, ?)
ON DUPLICATE KEY UPDATE http_status = VALUES(http_status), seen_at = CURRENT_TIMESTAMP(6)
`

// -----------------------------------------------------------------------------
// IMAGES
// -----------------------------------------------------------------------------

const insertImageSQL = `
INSERT INTO images
  (user_id, title, description, image_base64, image_type, image_size, image_width, image_height)
VALUES
  (?, ?, ?, ?, ?, ?, ?, ?)
`

const imageColumns = `i.id, i.user_id, i.title, i.description, i.image_base64, i.image_type,
  i.image_size, i.image_width, i.image_height, i.is_active, i.created_at, i.updated_at`

const getImageSQL = `SELECT ` + imageColumns + `
FROM images i
WHERE i.id = ? AND i.user_id = ?
`

const lockOwnedImageSQL = `SELECT id FROM images WHERE id = ? AND user_id = ? FOR UPDATE`

const deleteImageSQL = `DELETE FROM images WHERE id = ? AND user_id = ?`

// -----------------------------------------------------------------------------
// HOTEL IMAGES
// -----------------------------------------------------------------------------

const insertHotelImageSQL = `
INSERT INTO hotel_images (hotel_id, image_id, sort_order, is_primary)
VALUES (?, ?, ?, 0)
`

const hotelImageColumns = `h.id, h.hotel_id, h.image_id, h.sort_order, h.is_primary, h.created_at`

const getHotelImageSQL = `SELECT ` + hotelImageColumns + ` FROM hotel_images h WHERE h.id = ?`

const lockHotelImagePairSQL = `
SELECT id FROM hotel_images WHERE hotel_id = ? AND image_id = ? FOR UPDATE
`

// Clear before set: uq_hotel_primary rejects a second primary row.
const clearPrimarySQL = `UPDATE hotel_images SET is_primary = 0 WHERE hotel_id = ? AND is_primary = 1`
const setPrimarySQL = `UPDATE hotel_images SET is_primary = 1 WHERE id = ?`

const deleteHotelImageSQL = `DELETE FROM hotel_images WHERE id = ?`
const deleteLinksForImageSQL = `DELETE FROM hotel_images WHERE image_id = ?`

const hotelIDsForImageSQL = `SELECT DISTINCT hotel_id FROM hotel_images WHERE image_id = ? ORDER BY hotel_id`

// Order ties fall back to id, i.e. insertion order.
const listByHotelSQL = `
SELECT ` + hotelImageColumns + `, ` + imageColumns + `
FROM hotel_images h
JOIN images i ON i.id = h.image_id
WHERE h.hotel_id = ?
ORDER BY h.sort_order ASC, h.id ASC
`

const primaryByHotelSQL = `
SELECT ` + hotelImageColumns + `, ` + imageColumns + `
FROM hotel_images h
JOIN images i ON i.id = h.image_id
WHERE h.hotel_id = ? AND h.is_primary = 1
`

const countByHotelSQL = `SELECT COUNT(*) FROM hotel_images WHERE hotel_id = ?`
