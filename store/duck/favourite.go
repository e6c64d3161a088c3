package duck

import (
	"context"
	"encoding/json"
	"strings"

	"github.com/google/uuid"
	"github.com/pkg/errors"

	nt "opgateway/entity"
)

// SaveFavourite stores a named filter
func (dk *Duck) SaveFavourite(name string, tokens []nt.Token) (fav nt.Favourite, err error) {

	name = strings.TrimSpace(name)
	if name == "" {
		err = errors.New("favourite filter needs a name")
		return
	}

	encoded, err := json.Marshal(tokens)
	if err != nil {
		err = errors.Wrapf(err, "failed to encode filter")
		return
	}

	fav = nt.Favourite{
		Id:     uuid.NewString(),
		Name:   name,
		Tokens: tokens,
	}

	_, err = dk.db.Exec(
		"INSERT INTO user_filters (id, name, filter, created) VALUES (?, ?, ?, ?)",
		fav.Id, fav.Name, string(encoded), now())
	if err != nil {
		err = errors.Wrapf(err, "failed to save favourite %q", name)
		return
	}

	dk.logger.Info(context.Background(), "saved favourite", "id", fav.Id, "name", fav.Name)
	return
}

// Favourites lists saved filters, oldest first
func (dk *Duck) Favourites() (favs []nt.Favourite, err error) {

	rows, err := dk.db.Query("SELECT id, name, filter FROM user_filters ORDER BY created, id")
	if err != nil {
		err = errors.Wrapf(err, "failed to query favourites")
		return
	}
	defer rows.Close()

	for rows.Next() {
		var fav nt.Favourite
		var encoded string
		err = rows.Scan(&fav.Id, &fav.Name, &encoded)
		if err != nil {
			err = errors.Wrapf(err, "failed to scan favourite")
			return
		}

		err = json.Unmarshal([]byte(encoded), &fav.Tokens)
		if err != nil {
			err = errors.Wrapf(err, "failed to decode favourite %s", fav.Id)
			return
		}
		favs = append(favs, fav)
	}

	err = rows.Err()
	err = errors.Wrapf(err, "error iterating favourites")
	return
}
