package sqlinline

const QSelectUserSettings = `--sql 3c1f9e7a-5b2d-4e8f-a6c4-9d0b7e21f5a8
select
    coalesce(fal_api_key, ''),
    coalesce(image_size, ''),
    coalesce(style, ''),
    coalesce(colors, '')
from user_settings
where user_id = $1::text
limit 1;
`

const QUpsertUserSettings = `--sql 7e4a2c90-1d6b-4f35-b8e2-0a9c5d3f6b17
insert into user_settings (user_id, fal_api_key, image_size, style, colors, created_at, updated_at)
values ($1::text, nullif($2::text, ''), nullif($3::text, ''), nullif($4::text, ''), nullif($5::text, ''), now(), now())
on conflict (user_id) do update set
    fal_api_key = coalesce(excluded.fal_api_key, user_settings.fal_api_key),
    image_size = coalesce(excluded.image_size, user_settings.image_size),
    style = coalesce(excluded.style, user_settings.style),
    colors = coalesce(excluded.colors, user_settings.colors),
    updated_at = now();
`
